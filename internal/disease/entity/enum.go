package entity

type Stage string

const (
	StageReading            Stage = "reading"
	StageResolvingColumns   Stage = "resolving_columns"
	StageFetchingGeometries Stage = "fetching_geometries"
	StageBuildingRecords    Stage = "building_records"
	StageWriting            Stage = "writing"
	StageComplete           Stage = "complete"
	StageFailed             Stage = "failed"
)

// Terminal reports whether no further transition can happen from s.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

type ProgressType string

const (
	ProgressStatus   ProgressType = "status"
	ProgressComplete ProgressType = "complete"
	ProgressError    ProgressType = "error"
)

// Terminal reports whether t ends a run's event stream.
func (t ProgressType) Terminal() bool {
	return t == ProgressComplete || t == ProgressError
}

type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)
