package catscript

import "testing"

func TestListTypesAreInterned(t *testing.T) {
	if ListOf(TypeInt) != ListOf(TypeInt) {
		t.Fatalf("expected list<int> to be interned")
	}
	if ListOf(ListOf(TypeString)) != ListOf(ListOf(TypeString)) {
		t.Fatalf("expected nested list types to be interned")
	}
	if ListOf(TypeInt) == ListOf(TypeString) {
		t.Fatalf("list<int> must differ from list<string>")
	}
	if got := ListOf(ListOf(TypeBoolean)).String(); got != "list<list<bool>>" {
		t.Fatalf("unexpected type name %q", got)
	}
}

func TestIsAssignableFrom(t *testing.T) {
	cases := []struct {
		target *Type
		source *Type
		want   bool
	}{
		{TypeInt, TypeInt, true},
		{TypeObject, TypeInt, true},
		{TypeObject, ListOf(TypeString), true},
		{TypeInt, TypeObject, false},
		{TypeString, TypeInt, false},
		{TypeString, TypeNull, true},
		{TypeObject, TypeNull, true},
		{ListOf(TypeInt), TypeNull, true},
		{TypeInt, TypeNull, false},
		{TypeBoolean, TypeNull, false},
		{ListOf(TypeObject), ListOf(TypeInt), true},
		{ListOf(TypeInt), ListOf(TypeObject), false},
		{ListOf(ListOf(TypeObject)), ListOf(ListOf(TypeInt)), true},
		{ListOf(TypeInt), TypeInt, false},
	}
	for _, tc := range cases {
		if got := tc.target.IsAssignableFrom(tc.source); got != tc.want {
			t.Fatalf("%s.IsAssignableFrom(%s) = %t, want %t", tc.target, tc.source, got, tc.want)
		}
	}
}

func TestStorageClassOf(t *testing.T) {
	if StorageClassOf(TypeInt) != StorageNumeric || StorageClassOf(TypeBoolean) != StorageNumeric {
		t.Fatalf("primitives must use numeric storage")
	}
	if StorageClassOf(TypeString) != StorageReference || StorageClassOf(ListOf(TypeInt)) != StorageReference {
		t.Fatalf("references must use reference storage")
	}
	if StorageClassOf(TypeVoid) != StorageVoid {
		t.Fatalf("void must map to the void class")
	}
}
