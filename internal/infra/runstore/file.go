package runstore

import (
	"time"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

type runFile struct {
	RunID     string       `json:"run_id"`
	Profile   string       `json:"profile"`
	Method    string       `json:"method"`
	URL       string       `json:"url"`
	Headers   []headerFile `json:"headers"`
	Target    targetFile   `json:"target"`
	Level     string       `json:"level"`
	State     string       `json:"state"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Summary   summaryFile  `json:"summary"`
	Error     string       `json:"error,omitempty"`
	Notes     []string     `json:"notes,omitempty"`
	Results   []resultFile `json:"results"`
}

type headerFile struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type targetFile struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type summaryFile struct {
	Matched    int `json:"matched"`
	NotMatched int `json:"not_matched"`
	Total      int `json:"total"`
}

type resultFile struct {
	Index     int    `json:"index"`
	Payload   string `json:"payload"`
	Matched   bool   `json:"matched"`
	Status    int    `json:"status,omitempty"`
	URL       string `json:"url,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

func toFile(run domain.TestRun) runFile {
	out := runFile{
		RunID:     run.ID,
		Profile:   run.ProfileName,
		Method:    string(run.Method),
		URL:       run.URL,
		Headers:   make([]headerFile, 0, len(run.Headers)),
		Target:    targetFile{Name: run.Target.Name, Kind: string(run.Target.Kind)},
		Level:     string(run.Level),
		State:     string(run.State),
		StartedAt: run.StartedAt,
		EndedAt:   run.EndedAt,
		Summary: summaryFile{
			Matched:    run.Summary.Matched,
			NotMatched: run.Summary.NotMatched,
			Total:      run.Summary.Total,
		},
		Error:   run.Error,
		Notes:   run.Notes,
		Results: make([]resultFile, 0, len(run.Results)),
	}
	for _, h := range run.Headers {
		out.Headers = append(out.Headers, headerFile{Name: h.Name, Value: h.Value})
	}
	for _, r := range run.Results {
		rf := resultFile{
			Index:     r.Index,
			Payload:   r.Payload,
			Matched:   r.Matched,
			Status:    r.Status,
			URL:       r.URL,
			LatencyMS: r.LatencyMS,
		}
		if r.Error != nil {
			rf.ErrorKind = string(r.Error.Kind)
			rf.Error = r.Error.Message
		}
		out.Results = append(out.Results, rf)
	}
	return out
}
