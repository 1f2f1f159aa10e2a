// Package catscript implements the CatScript language: a small, statically
// typed scripting language with the following constructs:
//   - Variable declarations via `var name: type = expr` with optional types.
//   - Literals for ints, strings, bools, null, and lists (`[1, 2, 3]`).
//   - Arithmetic, comparison and equality expressions (+, -, *, /, <, <=, >, >=, ==, !=).
//   - Unary negation and logical not, parentheses for grouping.
//   - `if`/`else` and `for (x in list)` statements with block scopes.
//   - Top-level functions with typed parameters and return types; calls may
//     refer to functions defined later in the source.
//   - `print(expr)` writes the value followed by a newline.
//
// Comments beginning with `//` are ignored. A source consisting of a single
// expression is parsed in expression mode and evaluates to its value.
//
// Programs are parsed into an arena-backed tree, validated in place, and then
// either interpreted by the Engine or compiled through an Assembler such as
// the one in package stackvm. Both paths enforce a step quota and a
// recursion limit.
package catscript
