package model

import "time"

type BlockType string

const (
	BlockBreak       BlockType = "break"
	BlockHoliday     BlockType = "holiday"
	BlockMaintenance BlockType = "maintenance"
	BlockOther       BlockType = "other"
)

func (t BlockType) Valid() bool {
	switch t {
	case BlockBreak, BlockHoliday, BlockMaintenance, BlockOther:
		return true
	}
	return false
}

// TimeBlock is an administrator-defined exclusion window. A block with an
// empty ProfessionalID applies to every professional's calendar. Boundaries
// are not required to sit on the slot grid; the engine normalizes them when
// expanding the window into slots.
type TimeBlock struct {
	ID             string
	Date           string // 2006-01-02
	StartMinute    int
	EndMinute      int
	Reason         string
	Type           BlockType
	ProfessionalID string // empty = all professionals
	CreatedAt      time.Time
}

// AppliesTo reports whether the block covers the given professional's
// calendar. Global blocks (no professional) cover everyone.
func (b TimeBlock) AppliesTo(professionalID string) bool {
	return b.ProfessionalID == "" || b.ProfessionalID == professionalID
}
