package job

import (
	"database/sql/driver"
	"fmt"
)

// Status represents the current lifecycle state of a Job.
//
// The state machine is:
//
//	Pending    -> Processing
//	Scheduled  -> Processing
//	Failed     -> Processing
//	Processing -> Completed
//	Processing -> Failed    (retries remain)
//	Processing -> Dead      (retries exhausted)
//	Processing -> Pending   (via Release, graceful shutdown/crash recovery)
//	Dead       -> Pending   (via Requeue)
//	Failed     -> Pending   (via Requeue)
//
// Completed and Dead are terminal: no automatic transition leaves them.
type Status uint8

const (
	// Unknown is reserved as the zero value and is used to mean "no
	// status filter" in read operations such as Observer.List.
	Unknown Status = iota

	// Pending indicates the job is immediately eligible for leasing.
	Pending

	// Scheduled indicates the job was enqueued with a future RunAt and
	// is not yet eligible for leasing.
	Scheduled

	// Processing indicates exactly one worker currently holds the lease.
	Processing

	// Failed indicates the job errored on its last attempt, has retries
	// remaining, and is waiting for RunAt before becoming eligible again.
	Failed

	// Completed indicates the job finished successfully. Terminal.
	Completed

	// Dead indicates the job exhausted its retry budget. Terminal; the
	// logical dead-letter queue is simply every job in this state.
	Dead
)

func statusToString(status Status) string {
	switch status {
	case Pending:
		return "pending"
	case Scheduled:
		return "scheduled"
	case Processing:
		return "processing"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

func statusFromString(status string) (Status, error) {
	switch status {
	case "pending":
		return Pending, nil
	case "scheduled":
		return Scheduled, nil
	case "processing":
		return Processing, nil
	case "failed":
		return Failed, nil
	case "completed":
		return Completed, nil
	case "dead":
		return Dead, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return 0, fmt.Errorf("job: unknown status: %s", status)
	}
}

// ParseStatus converts a string representation of a status into a
// Status value. Recognized values are pending, scheduled, processing,
// failed, completed, dead and unknown. An error is returned for any
// other string.
func ParseStatus(s string) (Status, error) {
	return statusFromString(s)
}

// MarshalText implements encoding.TextMarshaler. Status values are
// encoded using their canonical lower-case names, which also matches
// the column representation used by store/sqlite.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(statusToString(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	status, err := statusFromString(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// String returns the canonical string representation of the status.
func (s Status) String() string {
	return statusToString(s)
}

// Value implements database/sql/driver.Valuer so a Status can be
// stored as its canonical text name in a SQL column.
func (s Status) Value() (driver.Value, error) {
	return statusToString(s), nil
}

// Scan implements database/sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		status, err := statusFromString(v)
		if err != nil {
			return err
		}
		*s = status
		return nil
	case []byte:
		status, err := statusFromString(string(v))
		if err != nil {
			return err
		}
		*s = status
		return nil
	case nil:
		*s = Unknown
		return nil
	default:
		return fmt.Errorf("job: cannot scan %T into Status", src)
	}
}

// Ready reports whether the status is one from which a job may be
// leased, subject to RunAt having elapsed. Processing is never ready:
// exactly one worker holds that lease.
func (s Status) Ready() bool {
	switch s {
	case Pending, Scheduled, Failed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is a terminal state that no
// automatic transition leaves.
func (s Status) Terminal() bool {
	return s == Completed || s == Dead
}
