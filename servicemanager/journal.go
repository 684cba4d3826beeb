package servicemanager

// Journaler describes an event logger. Implementations live in package
// journal.
type Journaler interface {
	Write(Event) error
}
