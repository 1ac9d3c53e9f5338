package codegen

// Binary format framing.
const (
	Magic   uint32 = 0x6D736100
	Version uint32 = 1

	SectionType     byte = 1
	SectionFunction byte = 3
	SectionExport   byte = 7
	SectionCode     byte = 10

	FuncTypeByte byte = 0x60
	KindFunc     byte = 0x00
)

// Core value types used by the three kinds.
const (
	ValI32 byte = 0x7F
	ValI64 byte = 0x7E
	ValF64 byte = 0x7C

	BlockTypeVoid byte = 0x40
)

// Instruction opcodes.
const (
	OpIf   byte = 0x04
	OpElse byte = 0x05
	OpEnd  byte = 0x0B
	OpDrop byte = 0x1A

	OpLocalGet byte = 0x20
	OpLocalSet byte = 0x21

	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
	OpF64Const byte = 0x44

	OpI32Eqz byte = 0x45
	OpI32Eq  byte = 0x46
	OpI32Ne  byte = 0x47

	OpI64Eq  byte = 0x51
	OpI64Ne  byte = 0x52
	OpI64LtS byte = 0x53
	OpI64GtS byte = 0x55
	OpI64LeS byte = 0x57
	OpI64GeS byte = 0x59

	OpF64Eq byte = 0x61
	OpF64Ne byte = 0x62
	OpF64Lt byte = 0x63
	OpF64Gt byte = 0x64
	OpF64Le byte = 0x65
	OpF64Ge byte = 0x66

	OpI32And byte = 0x71
	OpI32Or  byte = 0x72
	OpI32Xor byte = 0x73

	OpI64Add  byte = 0x7C
	OpI64Sub  byte = 0x7D
	OpI64Mul  byte = 0x7E
	OpI64DivS byte = 0x7F
	OpI64RemS byte = 0x81
	OpI64And  byte = 0x83
	OpI64Or   byte = 0x84
	OpI64Xor  byte = 0x85
	OpI64Shl  byte = 0x86
	OpI64ShrS byte = 0x87

	OpF64Abs  byte = 0x99
	OpF64Neg  byte = 0x9A
	OpF64Sqrt byte = 0x9F
	OpF64Add  byte = 0xA0
	OpF64Sub  byte = 0xA1
	OpF64Mul  byte = 0xA2
	OpF64Div  byte = 0xA3
	OpF64Min  byte = 0xA4
	OpF64Max  byte = 0xA5

	OpI64ExtendI32U  byte = 0xAD
	OpF64ConvertI64S byte = 0xB9

	OpPrefixMisc byte = 0xFC

	// MiscI64TruncSatF64S follows OpPrefixMisc.
	MiscI64TruncSatF64S uint32 = 6
)
