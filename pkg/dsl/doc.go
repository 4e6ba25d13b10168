/*
Package dsl implements the P-expression syntax used to describe node graphs.

A P-expression is a nested constructor call. Positional arguments fill
the implicit pos1, pos2, ... slots, a trailing '?' marks a query
(constraint level 1) and '??' a partially specified object (level 2).

	Meeting?(attendee=ANY(Name(John), Name(Mary)), start=GT(Time(9)))
	{order}Pizza(size=large, ^urgent)
	revise(old=Foo?(), new=Foo?(y=2), newMode=overwrite)
	refer(Pizza?(), multi=true)
	getattr(size, $order)
	$#12

Expressions can be parsed from text or built with the fluent helpers:

	package main

	import "github.com/aretw0/tendril/pkg/dsl"

	func main() {
		e := dsl.Query("Foo").With("y", dsl.Int(2))
		println(e.String()) // Foo?(y=2)
	}

Parse and String round-trip: parsing the canonical text of a tree yields
an equal tree.
*/
package dsl
