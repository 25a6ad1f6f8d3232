package eval

// ObjectKind tags every runtime value. Dispatch throughout the evaluator
// switches on this tag, so adding a variant means touching each exhaustive
// switch rather than discovering the gap at runtime.
type ObjectKind uint8

const (
	KindNull ObjectKind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindList
	KindMap
	KindFunction
	KindBuiltin
	KindExternal
	KindClass
	KindInstance
	KindBoundMethod
	KindEnum
	KindEnumMember
	KindNamespace
	KindHandle

	// Signal kinds never escape the evaluator into user-visible values.
	KindReturnSignal
	KindBreakSignal
	KindContinueSignal
	KindThrownSignal
	KindError
)

var kindNames = [...]string{
	KindNull:           "null",
	KindBool:           "bool",
	KindInt:            "int",
	KindUint:           "uint",
	KindFloat:          "float",
	KindString:         "string",
	KindList:           "list",
	KindMap:            "map",
	KindFunction:       "function",
	KindBuiltin:        "builtin",
	KindExternal:       "external",
	KindClass:          "class",
	KindInstance:       "instance",
	KindBoundMethod:    "method",
	KindEnum:           "enum",
	KindEnumMember:     "enum member",
	KindNamespace:      "namespace",
	KindHandle:         "handle",
	KindReturnSignal:   "return signal",
	KindBreakSignal:    "break signal",
	KindContinueSignal: "continue signal",
	KindThrownSignal:   "thrown signal",
	KindError:          "error",
}

func (k ObjectKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}
