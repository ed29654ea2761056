// Package vtl implements the subset of the Velocity Template Language that
// API Gateway mapping templates are written in.
//
// Rendering happens in three phases, the same split a classic template
// engine uses:
//
//  1. Lexing turns the source into a flat list of text, reference and
//     directive tokens. Directive arguments are parsed into expression trees
//     while lexing.
//  2. Building matches #if/#elseif/#else/#foreach against their #end and
//     produces a node tree.
//  3. Execution walks the tree against a variable map.
//
// Values are the jsonvalue model (nil, bool, numbers, string, *Array,
// *Object) plus any value the caller binds. Member access on values the
// engine does not understand is delegated to a Resolver, which is how the
// API Gateway variables ($input, $util, $context) are implemented.
//
// Example:
//
//	engine := vtl.New(vtl.WithResolver(myResolver))
//	out, err := engine.Render(`#set($n = $input.json('$.name'))Hello $n`, vars)
package vtl
