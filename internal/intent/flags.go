package intent

// Flag is one entry of the dispatch flag table.
type Flag struct {
	Value uint32
	Name  string
}

// flagDefinitions lists the platform's activity and receiver dispatch flags
// in declaration order. Receiver flags reuse activity bit values; see
// flagTable for how the collisions resolve.
var flagDefinitions = []Flag{
	{0x00000001, "FLAG_GRANT_READ_URI_PERMISSION"},
	{0x00000002, "FLAG_GRANT_WRITE_URI_PERMISSION"},
	{0x00000004, "FLAG_FROM_BACKGROUND"},
	{0x00000008, "FLAG_DEBUG_LOG_RESOLUTION"},
	{0x00000010, "FLAG_EXCLUDE_STOPPED_PACKAGES"},
	{0x00000020, "FLAG_INCLUDE_STOPPED_PACKAGES"},
	{0x40000000, "FLAG_ACTIVITY_NO_HISTORY"},
	{0x20000000, "FLAG_ACTIVITY_SINGLE_TOP"},
	{0x10000000, "FLAG_ACTIVITY_NEW_TASK"},
	{0x08000000, "FLAG_ACTIVITY_MULTIPLE_TASK"},
	{0x04000000, "FLAG_ACTIVITY_CLEAR_TOP"},
	{0x02000000, "FLAG_ACTIVITY_FORWARD_RESULT"},
	{0x01000000, "FLAG_ACTIVITY_PREVIOUS_IS_TOP"},
	{0x00800000, "FLAG_ACTIVITY_EXCLUDE_FROM_RECENTS"},
	{0x00400000, "FLAG_ACTIVITY_BROUGHT_TO_FRONT"},
	{0x00200000, "FLAG_ACTIVITY_RESET_TASK_IF_NEEDED"},
	{0x00100000, "FLAG_ACTIVITY_LAUNCHED_FROM_HISTORY"},
	{0x00080000, "FLAG_ACTIVITY_CLEAR_WHEN_TASK_RESET"},
	{0x00040000, "FLAG_ACTIVITY_NO_USER_ACTION"},
	{0x00020000, "FLAG_ACTIVITY_REORDER_TO_FRONT"},
	{0x00010000, "FLAG_ACTIVITY_NO_ANIMATION"},
	{0x00008000, "FLAG_ACTIVITY_CLEAR_TASK"},
	{0x00004000, "FLAG_ACTIVITY_TASK_ON_HOME"},
	{0x40000000, "FLAG_RECEIVER_REGISTERED_ONLY"},
	{0x20000000, "FLAG_RECEIVER_REPLACE_PENDING"},
	{0x10000000, "FLAG_RECEIVER_FOREGROUND"},
	{0x08000000, "FLAG_RECEIVER_REGISTERED_ONLY_BEFORE_BOOT"},
	{0x04000000, "FLAG_RECEIVER_BOOT_UPGRADE"},
}

// flagTable is keyed by bit value: a later definition of an already-seen
// value takes over the name but keeps the first position.
var flagTable = buildFlagTable(flagDefinitions)

func buildFlagTable(defs []Flag) []Flag {
	table := make([]Flag, 0, len(defs))
	index := make(map[uint32]int, len(defs))
	for _, def := range defs {
		if i, ok := index[def.Value]; ok {
			table[i].Name = def.Name
			continue
		}
		index[def.Value] = len(table)
		table = append(table, def)
	}
	return table
}

// Flags returns a copy of the lookup table in table order.
func Flags() []Flag {
	cp := make([]Flag, len(flagTable))
	copy(cp, flagTable)
	return cp
}

// FlagDefinitions returns every declared flag, collisions included.
func FlagDefinitions() []Flag {
	cp := make([]Flag, len(flagDefinitions))
	copy(cp, flagDefinitions)
	return cp
}

// FlagName looks up the symbolic name of a single table key.
func FlagName(value uint32) (string, bool) {
	for _, f := range flagTable {
		if f.Value == value {
			return f.Name, true
		}
	}
	return "", false
}

// DecodeFlags returns the names of every table entry whose bits are set in
// mask, in table order. Bits outside the table are ignored. The result is
// never nil.
func DecodeFlags(mask uint32) []string {
	names := make([]string, 0, 4)
	for _, f := range flagTable {
		if mask&f.Value != 0 {
			names = append(names, f.Name)
		}
	}
	return names
}

// UnknownFlagBits returns the bits of mask not covered by the table.
func UnknownFlagBits(mask uint32) uint32 {
	for _, f := range flagTable {
		mask &^= f.Value
	}
	return mask
}
