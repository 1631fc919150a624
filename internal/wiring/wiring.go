// Package wiring resolves the layered configuration described in
// spec.md §6 into the typed records internal/config decodes, for the
// three binaries' hand-authored composition roots to assemble into
// running engines. This mirrors the teacher's internal/source/logical
// provider.go split: small Resolve* functions here, stitched together
// by each cmd's wire_gen.go.
package wiring

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/config"
)

// LoadProjectConfig loads the standard layer sequence described in
// spec.md §6 — init, bootstrap, connect, then the project file — rooted
// at confDir/localDir. The .tables file is not loaded here; each cmd's
// wire_gen.go loads it separately.
func LoadProjectConfig(confDir, localDir, projectName string) (*config.Layers, error) {
	l := config.New()
	for _, name := range []string{"init.ini", "bootstrap.ini", "connect.ini"} {
		path := filepath.Join(confDir, name)
		if err := l.Load(path); err != nil {
			return nil, err
		}
	}
	if err := l.Load(filepath.Join(localDir, projectName+".project")); err != nil {
		return nil, errors.Wrapf(err, "loading project file for %s", projectName)
	}
	return l, nil
}

// ResolveProject decodes the named [project:name] section and its bound
// [datapool:name] section.
func ResolveProject(l *config.Layers, projectName string) (config.ProjectSpec, config.DatapoolSpec, error) {
	projSec, ok := l.Section("project", projectName)
	if !ok {
		return config.ProjectSpec{}, config.DatapoolSpec{}, errors.Errorf("no [project:%s] section configured", projectName)
	}
	proj := config.DecodeProject(projSec)

	poolSec, ok := l.Section("datapool", proj.Datapool)
	if !ok {
		return proj, config.DatapoolSpec{}, errors.Errorf("project %s references unknown datapool %s", projectName, proj.Datapool)
	}
	return proj, config.DecodeDatapool(poolSec), nil
}

// ResolveDatabase decodes a [database:name] section.
func ResolveDatabase(l *config.Layers, name string) (config.DatabaseSpec, error) {
	sec, ok := l.Section("database", name)
	if !ok {
		return config.DatabaseSpec{}, errors.Errorf("no [database:%s] section configured", name)
	}
	return config.DecodeDatabase(sec), nil
}

// ResolveCloud decodes a [cloud:name] section.
func ResolveCloud(l *config.Layers, name string) (config.CloudSpec, error) {
	sec, ok := l.Section("cloud", name)
	if !ok {
		return config.CloudSpec{}, errors.Errorf("no [cloud:%s] section configured", name)
	}
	return config.DecodeCloud(sec), nil
}

// ResolveSchedule decodes a [schedule:name] section, returning a zero
// ScheduleSpec (an always-due, 15s-interval schedule) if name is empty
// or unconfigured.
func ResolveSchedule(l *config.Layers, name string) config.ScheduleSpec {
	if name == "" {
		return config.ScheduleSpec{}
	}
	sec, ok := l.Section("schedule", name)
	if !ok {
		return config.ScheduleSpec{}
	}
	return config.DecodeSchedule(sec)
}

// ResolveTables decodes every loaded [table:name] section, in load
// order, for the per-namespace .tables file merged into l.
func ResolveTables(l *config.Layers) []config.TableSpec {
	secs := l.SectionsOfKind("table")
	tables := make([]config.TableSpec, len(secs))
	for i, sec := range secs {
		tables[i] = config.DecodeTable(sec)
	}
	return tables
}
