package packet

// Server → client opcodes.
const (
	S_OPCODE_BATTLE_START byte = 0x01
	S_OPCODE_SHIPS_PRE    byte = 0x02
	S_OPCODE_SIM_RESULTS  byte = 0x03
	S_OPCODE_SHIPS_POST   byte = 0x04
	S_OPCODE_TICK         byte = 0x05
	S_OPCODE_LAST_TICK    byte = 0x06
)

// Client → server opcodes.
const (
	C_OPCODE_JOIN byte = 0x40
	C_OPCODE_PLAN byte = 0x41
)
