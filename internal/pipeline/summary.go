package pipeline

// Summary counts what an invocation did. Items are counted once per pop, so an item that
// is requeued twice and then processed counts two requeues and one processed.
type Summary struct {
	Processed         int `json:"processed"`
	Skipped           int `json:"skipped"`
	Requeued          int `json:"requeued"`
	DeadLettered      int `json:"dead_lettered"`
	BiospecimenWrites int `json:"biospecimen_writes"`
	AclWrites         int `json:"acl_writes"`

	// Continued is the number of checkpoints handed to the continuation sink.
	Continued int `json:"continued"`
}

// Add accumulates other into s. Used to total the invocations of a continuation chain.
func (s *Summary) Add(other Summary) {
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Requeued += other.Requeued
	s.DeadLettered += other.DeadLettered
	s.BiospecimenWrites += other.BiospecimenWrites
	s.AclWrites += other.AclWrites
	s.Continued += other.Continued
}
