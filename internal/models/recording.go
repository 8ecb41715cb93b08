package models

// Recording bitmap geometry.
const (
	MinutesPerDay    = 1440
	RecMinutesLen    = MinutesPerDay + 1
	RecDayGridBytes  = MinutesPerDay / 8
	RecOverlapOffset = MinutesPerDay
)

// Recording type bits as reported in day-search records.
const (
	RecTypeManual   = 0x01
	RecTypeAlarm    = 0x02
	RecTypeSchedule = 0x04
	RecTypeCosec    = 0x08
)

// Priority characters written into the minute string, lowest first.
const (
	RecNone     byte = '0'
	RecSchedule byte = '1'
	RecManual   byte = '2'
	RecCosec    byte = '3'
	RecAlarm    byte = '4'
)
