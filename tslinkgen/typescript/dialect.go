package typescript

import "github.com/broady/tslink/tslinkgen/ir"

// Dialect describes the small differences between a .ts module and an
// ambient lib.d.ts. Both are rendered by the same Emitter.
type Dialect struct {
	// Name is used in log output.
	Name string

	// Target selects which directive target routes entities.
	Target ir.TargetKind

	// ClassKeyword opens a class-mode struct.
	ClassKeyword string

	// AbstractMethods prefixes class methods with "public abstract".
	AbstractMethods bool

	// ClassConstructors renders the constructor slot of class-mode structs.
	ClassConstructors bool

	// DeclareConstants renders constants without their value.
	DeclareConstants bool

	// Barrel maintains an index.ts re-exporting every entity of a directory.
	Barrel bool
}

// DialectTS renders .ts modules. Classes are abstract; their constructor
// lives in the native addon.
var DialectTS = Dialect{
	Name:            "ts",
	Target:          ir.TargetTS,
	ClassKeyword:    "export abstract class",
	AbstractMethods: true,
	Barrel:          true,
}

// DialectDTS renders the ambient lib.d.ts describing lib.js.
var DialectDTS = Dialect{
	Name:              "d.ts",
	Target:            ir.TargetDTS,
	ClassKeyword:      "export declare class",
	ClassConstructors: true,
	DeclareConstants:  true,
}
