// Package graphir implements the minimal mutable dataflow graph contract
// that the lstm fusion rewriter (package rewrite/lstm) consumes: node
// lookup by name, consumer lookup by output tensor, constant
// materialization, shape queries, and bulk node-set replacement.
//
// It deliberately does not attempt shape inference, constant folding, or
// serialization beyond what the rewriter itself needs — those are the
// responsibility of the surrounding ML framework in a real deployment and
// are treated here as out of scope, matching the external-collaborator
// boundary the rewriter is designed against.
package graphir
