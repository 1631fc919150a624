package config

import (
	"strconv"
	"strings"
	"time"
)

// CloudSpec describes a [cloud:name] record: credentials and endpoint
// information for an object store / queue provider.
type CloudSpec struct {
	Name     string
	Provider string
	Region   string
	Bucket   string
	Queue    string
	Endpoint string
}

// DecodeCloud reads a CloudSpec out of a loaded section.
func DecodeCloud(s *Section) CloudSpec {
	return CloudSpec{
		Name:     s.Name,
		Provider: s.GetDefault("provider", "aws"),
		Region:   s.Get("region"),
		Bucket:   s.Get("bucket"),
		Queue:    s.Get("queue"),
		Endpoint: s.Get("endpoint"),
	}
}

// DatabaseSpec describes a [database:name] record: a connection to a
// source, staging, or warehouse database.
type DatabaseSpec struct {
	Name       string
	Driver     string
	DSN        string
	MaxConns   int
	LifetimeSec int
}

// DecodeDatabase reads a DatabaseSpec out of a loaded section.
func DecodeDatabase(s *Section) DatabaseSpec {
	maxConns, _ := strconv.Atoi(s.GetDefault("max_conns", "10"))
	lifetime, _ := strconv.Atoi(s.GetDefault("lifetime_seconds", "300"))
	return DatabaseSpec{
		Name:        s.Name,
		Driver:      s.Get("driver"),
		DSN:         s.Get("dsn"),
		MaxConns:    maxConns,
		LifetimeSec: lifetime,
	}
}

// DatapoolSpec describes a [datapool:name] record: the namespace
// identity and the capture/archive bucket bindings that feed it.
type DatapoolSpec struct {
	Name          string
	Entity        string
	Location      string
	System        string
	Instance      string
	Subject       string
	CaptureCloud  string
	ArchiveCloud  string
	WarehouseName string
	BatchSize     int
	StepBackSec   int

	// StageNotifyQueue names an optional [cloud:name] record whose queue
	// Stage posts to after durably applying a bundle, per spec.md §4.4.1
	// step 3 ("optionally post a message to the downstream stage
	// notification queue"). Empty disables the notification.
	StageNotifyQueue string
}

// Namespace renders the entity_location_system_instance_subject
// identifier described in spec.md §3.
func (d DatapoolSpec) Namespace() string {
	parts := []string{d.Entity, d.Location, d.System, d.Instance, d.Subject}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "_")
}

// DecodeDatapool reads a DatapoolSpec out of a loaded section.
func DecodeDatapool(s *Section) DatapoolSpec {
	batchSize, _ := strconv.Atoi(s.GetDefault("batch_size", "1000000"))
	stepBack, _ := strconv.Atoi(s.GetDefault("step_back_seconds", "60"))
	return DatapoolSpec{
		Name:             s.Name,
		Entity:           s.Get("entity"),
		Location:         s.Get("location"),
		System:           s.Get("system"),
		Instance:         s.Get("instance"),
		Subject:          s.Get("subject"),
		CaptureCloud:     s.Get("capture_cloud"),
		ArchiveCloud:     s.Get("archive_cloud"),
		WarehouseName:    s.Get("warehouse"),
		BatchSize:        batchSize,
		StepBackSec:      stepBack,
		StageNotifyQueue: s.Get("stage_notify_queue"),
	}
}

// ProjectSpec describes a [project:name] record binding a datapool to
// a schedule and to the source database it extracts from.
type ProjectSpec struct {
	Name       string
	Datapool   string
	SourceDB   string
	Schedule   string
	PollFreqSec int
}

// DecodeProject reads a ProjectSpec out of a loaded section.
func DecodeProject(s *Section) ProjectSpec {
	pollFreq, _ := strconv.Atoi(s.GetDefault("poll_frequency_seconds", "15"))
	return ProjectSpec{
		Name:        s.Name,
		Datapool:    s.Get("datapool"),
		SourceDB:    s.Get("source_database"),
		Schedule:    s.Get("schedule"),
		PollFreqSec: pollFreq,
	}
}

// ScheduleSpec describes a [schedule:name] record, a minimal
// cron-like predicate: either a fixed interval or a daily
// time-of-day window restricted to a set of weekdays.
type ScheduleSpec struct {
	Name        string
	EverySecond int
	AtTimeOfDay string // "HH:MM", empty if interval-based
	Weekdays    []time.Weekday
}

// DecodeSchedule reads a ScheduleSpec out of a loaded section.
func DecodeSchedule(s *Section) ScheduleSpec {
	every, _ := strconv.Atoi(s.Get("every_seconds"))
	var days []time.Weekday
	if raw := s.Get("weekdays"); raw != "" {
		for _, tok := range strings.Split(raw, ",") {
			if d, ok := parseWeekday(strings.TrimSpace(tok)); ok {
				days = append(days, d)
			}
		}
	}
	return ScheduleSpec{
		Name:        s.Name,
		EverySecond: every,
		AtTimeOfDay: s.Get("at"),
		Weekdays:    days,
	}
}

func parseWeekday(tok string) (time.Weekday, bool) {
	switch strings.ToLower(tok) {
	case "sun", "sunday":
		return time.Sunday, true
	case "mon", "monday":
		return time.Monday, true
	case "tue", "tuesday":
		return time.Tuesday, true
	case "wed", "wednesday":
		return time.Wednesday, true
	case "thu", "thursday":
		return time.Thursday, true
	case "fri", "friday":
		return time.Friday, true
	case "sat", "saturday":
		return time.Saturday, true
	}
	return 0, false
}

// CDCMode enumerates the per-table change-detection strategy.
type CDCMode string

// CDC modes as named in spec.md §3.
const (
	CDCNone       CDCMode = "none"
	CDCTimestamp  CDCMode = "timestamp"
	CDCRowversion CDCMode = "rowversion"
)

// TableSpec is the declarative, static-per-run configuration for one
// captured table, decoded from a [table:name] record in a .tables file.
type TableSpec struct {
	SchemaName     string
	TableName      string
	CDC            CDCMode
	Timestamp      string // possibly a comma-separated multi-column list
	PrimaryKey     []string
	FirstTimestamp time.Time
	IgnoreColumns  []string // glob patterns
	IgnoreTable    bool
	DropTable      bool
	Join           string
	Where          string
	Order          string
	TableType      string
}

// DecodeTable reads a TableSpec out of a loaded [table:name] section.
func DecodeTable(s *Section) TableSpec {
	first := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	if raw := s.Get("first_timestamp"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			first = t
		} else if t, err := time.Parse(time.RFC3339, raw); err == nil {
			first = t
		}
	}

	var pk []string
	if raw := s.Get("primary_key"); raw != "" {
		pk = splitList(raw)
	}

	var ignore []string
	if raw := s.Get("ignore_columns"); raw != "" {
		ignore = splitList(raw)
	}

	cdc := CDCMode(strings.ToLower(s.GetDefault("cdc", "none")))
	if cdc != CDCTimestamp && cdc != CDCRowversion {
		cdc = CDCNone
	}

	return TableSpec{
		SchemaName:     s.GetDefault("schema_name", s.Name),
		TableName:      s.Name,
		CDC:            cdc,
		Timestamp:      s.Get("timestamp"),
		PrimaryKey:     pk,
		FirstTimestamp: first,
		IgnoreColumns:  ignore,
		IgnoreTable:    s.Get("ignore_table") == "1",
		DropTable:      s.Get("drop_table") == "1",
		Join:           s.Get("join"),
		Where:          s.Get("where"),
		Order:          s.Get("order"),
		TableType:      s.Get("table_type"),
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
