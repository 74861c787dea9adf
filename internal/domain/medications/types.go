package medications

type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

type Source string

const (
	SourceManual       Source = "manual"
	SourceScan         Source = "scan"
	SourcePrescription Source = "prescription"
)

type DoseStatus string

const (
	DoseStatusPending DoseStatus = "pending"
	DoseStatusTaken   DoseStatus = "taken"
	DoseStatusSkipped DoseStatus = "skipped"
	DoseStatusLate    DoseStatus = "late"
)

func ValidDoseStatus(s DoseStatus) bool {
	switch s {
	case DoseStatusPending, DoseStatusTaken, DoseStatusSkipped, DoseStatusLate:
		return true
	default:
		return false
	}
}
