package telemetry

import (
	"strings"
	"sync"
)

type ReportKind int

const (
	KindBroken ReportKind = iota
	KindWarning
	KindDebug
	KindCount
)

type Report struct {
	Kind   ReportKind
	ID     string
	Params []any
	Count  int64
}

// MemoryAPI keeps every report in memory so tests can assert on them.
type MemoryAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{}
}

func (m *MemoryAPI) add(r Report) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reports = append(m.reports, r)
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.add(Report{Kind: KindBroken, ID: id, Params: params})
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.add(Report{Kind: KindWarning, ID: id, Params: params})
}

func (m *MemoryAPI) ReportDebug(msg string, params ...any) {
	m.add(Report{Kind: KindDebug, ID: msg, Params: params})
}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.add(Report{Kind: KindCount, ID: id, Count: count})
}

// Reports returns a copy of the reports of the given kind whose id ends with
// suffix, an empty suffix matches everything.
func (m *MemoryAPI) Reports(kind ReportKind, suffix string) []Report {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var out []Report
	for _, r := range m.reports {
		if r.Kind != kind || !strings.HasSuffix(r.ID, suffix) {
			continue
		}
		out = append(out, r)
	}
	return out
}
