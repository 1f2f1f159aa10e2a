package stackvm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mgomes/catscript/catscript"
)

// Global is a top-level variable slot shared by every unit.
type Global struct {
	Name  string
	Class catscript.StorageClass
}

// Unit is one callable block of code: a function, or the entry unit.
type Unit struct {
	Name   string
	Desc   catscript.Descriptor
	Code   []Instruction
	Consts []catscript.Value
	Locals int
}

// Artifact is a compiled program: its globals and units in emission order.
type Artifact struct {
	Name    string
	Globals []Global
	Units   []*Unit

	globalIndex map[string]int
	unitIndex   map[string]*Unit
}

func newArtifact(name string) *Artifact {
	return &Artifact{
		Name:        name,
		globalIndex: make(map[string]int),
		unitIndex:   make(map[string]*Unit),
	}
}

func (a *Artifact) addUnit(u *Unit) {
	a.Units = append(a.Units, u)
	a.unitIndex[u.Name] = u
}

// Unit looks a unit up by name.
func (a *Artifact) Unit(name string) *Unit {
	return a.unitIndex[name]
}

// Disassemble writes a readable listing of the artifact.
func (a *Artifact) Disassemble(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "artifact %s\n", a.Name)
	for _, g := range a.Globals {
		fmt.Fprintf(bw, "global %s %s\n", g.Class, g.Name)
	}
	for _, u := range a.Units {
		fmt.Fprintf(bw, "\nunit %s %s locals=%d\n", u.Name, u.Desc, u.Locals)
		for i, c := range u.Consts {
			fmt.Fprintf(bw, "  const %d %q\n", i, c.String())
		}
		for pc, in := range u.Code {
			fmt.Fprintf(bw, "  %04d  %s\n", pc, in)
		}
	}
	return bw.Flush()
}
