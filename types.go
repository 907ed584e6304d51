package loupe

import (
	"loupe/internal/chain"
	"loupe/internal/pin"
	"loupe/internal/rules"
	"loupe/internal/source"
)

// Public type aliases for internal types used in the Library API. These are
// Go type aliases (=), identical to the internal types at compile time.
// External consumers use these names; no conversion is needed.

type Pin = pin.Pin
type Kind = pin.Kind
type Scope = pin.Scope
type Visibility = pin.Visibility
type Position = pin.Position
type Range = pin.Range
type Location = pin.Location
type Source = source.Source
type Change = source.Change
type Updater = source.Updater
type Chain = chain.Chain
type Diagnostic = rules.Diagnostic
type Severity = rules.Severity

// Pin kinds, re-exported for callers filtering query results.
const (
	KindClass            = pin.KindClass
	KindModule           = pin.KindModule
	KindMethod           = pin.KindMethod
	KindConstant         = pin.KindConstant
	KindParameter        = pin.KindParameter
	KindLocalVariable    = pin.KindLocalVariable
	KindInstanceVariable = pin.KindInstanceVariable
	KindClassVariable    = pin.KindClassVariable
	KindBlockParameter   = pin.KindBlockParameter
)
