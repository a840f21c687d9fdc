package parser

// Binding power of infix operators. Higher binds tighter.
const (
	precSequence   = 1  // ;
	precArrow      = 2  // ->
	precAssignment = 3  // = += -= *= /= <>
	precOr         = 4  // ||
	precAnd        = 5  // &&
	precEquality   = 6  // == !=
	precComparison = 7  // < > <= >=
	precAdditive   = 8  // + -
	precMultiply   = 9  // * / %
	precPower      = 10 // ^
	precUnary      = 11 // - ! ...
	precAccess     = 12 // : ~
)

type opInfo struct {
	prec  int
	right bool
}

var binaryOps = map[string]opInfo{
	";":  {precSequence, false},
	"->": {precArrow, true},
	"=":  {precAssignment, true},
	"+=": {precAssignment, true},
	"-=": {precAssignment, true},
	"*=": {precAssignment, true},
	"/=": {precAssignment, true},
	"<>": {precAssignment, true},
	"||": {precOr, false},
	"&&": {precAnd, false},
	"==": {precEquality, false},
	"!=": {precEquality, false},
	"<":  {precComparison, false},
	">":  {precComparison, false},
	"<=": {precComparison, false},
	">=": {precComparison, false},
	"+":  {precAdditive, false},
	"-":  {precAdditive, false},
	"*":  {precMultiply, false},
	"/":  {precMultiply, false},
	"%":  {precMultiply, false},
	"^":  {precPower, true},
	":":  {precAccess, false},
	"~":  {precAccess, false},
}

var prefixOps = map[string]bool{"-": true, "+": true, "!": true, "...": true}

// constants are identifiers with a fixed value.
var constants = map[string]bool{"true": true, "false": true, "null": true, "pi": true, "euler": true}

// IsConstant reports whether name is a language constant rather than a
// variable.
func IsConstant(name string) bool { return constants[name] }
