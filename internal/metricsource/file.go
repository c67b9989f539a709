package metricsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ahrav/go-adhere/internal/domain"
)

// patientRecord is the on-disk shape of one patient. Series values are
// indexed by day; a JSON null is a missing day.
type patientRecord struct {
	ID      string                               `json:"id"`
	Series  map[string][]*float64                `json:"series"`
	Entries map[string][]domain.CategoricalEntry `json:"entries"`
}

type fileDocument struct {
	Patients []patientRecord `json:"patients"`
}

// FileSource serves metric data from a JSON document loaded into memory.
// It is read-only after construction and safe for concurrent use.
type FileSource struct {
	patients map[string]patientRecord
	order    []string
}

// LoadFile reads a patient data document.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metric data: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument builds a FileSource from raw JSON.
func ParseDocument(data []byte) (*FileSource, error) {
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode metric data: %w", err)
	}
	src := &FileSource{patients: make(map[string]patientRecord, len(doc.Patients))}
	for i, p := range doc.Patients {
		if p.ID == "" {
			return nil, fmt.Errorf("patients[%d]: missing id", i)
		}
		if _, dup := src.patients[p.ID]; dup {
			return nil, fmt.Errorf("patients[%d]: duplicate id %q", i, p.ID)
		}
		src.patients[p.ID] = p
		src.order = append(src.order, p.ID)
	}
	sort.Strings(src.order)
	return src, nil
}

// Patients implements Source.
func (f *FileSource) Patients(context.Context) ([]string, error) {
	return append([]string(nil), f.order...), nil
}

// Series implements Source. Days past the end of the recorded values are missing.
func (f *FileSource) Series(_ context.Context, patientID, metric string, startDay, days int) (domain.MetricSeries, error) {
	p, ok := f.patients[patientID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", patientID, ErrUnknownPatient)
	}
	values, ok := p.Series[metric]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", patientID, metric, ErrNoData)
	}
	out := domain.EmptySeries(startDay, days)
	for i := range out {
		day := startDay + i
		if day >= 0 && day < len(values) && values[day] != nil {
			v := *values[day]
			out[i].Value = &v
		}
	}
	return out, nil
}

// Entries implements Source.
func (f *FileSource) Entries(_ context.Context, patientID, metric string, startDay, days int) ([]domain.CategoricalEntry, error) {
	p, ok := f.patients[patientID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", patientID, ErrUnknownPatient)
	}
	all, ok := p.Entries[metric]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", patientID, metric, ErrNoData)
	}
	out := make([]domain.CategoricalEntry, 0, len(all))
	for _, e := range all {
		if e.Day >= startDay && e.Day < startDay+days {
			out = append(out, e)
		}
	}
	return out, nil
}

// Horizon implements Source.
func (f *FileSource) Horizon(_ context.Context, patientID string) (int, error) {
	p, ok := f.patients[patientID]
	if !ok {
		return 0, fmt.Errorf("%s: %w", patientID, ErrUnknownPatient)
	}
	n := 0
	for _, values := range p.Series {
		n = max(n, len(values))
	}
	for _, entries := range p.Entries {
		for _, e := range entries {
			n = max(n, e.Day+1)
		}
	}
	return n, nil
}
