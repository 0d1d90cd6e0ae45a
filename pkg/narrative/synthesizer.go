// Package narrative turns a metric snapshot, regime score, and curated
// central-bank signal into the report's executive summary. When an OpenAI
// key is configured it synthesizes the text via chat completions; otherwise,
// or on any API failure, it degrades to a deterministic summary built from
// the same inputs. Synthesize never fails the run.
package narrative

import (
	"context"
	"text/template"

	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/metrics"
	"github.com/esseedoubleyou/goldmonitor/pkg/regime"
)

// Source markers recorded in the run journal.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Input bundles everything the synthesis prompt draws on.
type Input struct {
	Snapshot *metrics.Snapshot
	Score    regime.Score
	Signal   centralbank.Signal
}

// Result is the synthesized text plus where it came from.
type Result struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Synthesizer renders the analysis prompt and drives the completion client.
type Synthesizer struct {
	cfg    *Config
	client *Client
	logger Logger
	tmpl   *template.Template
}

// NewSynthesizer builds a synthesizer from config. A config without an API
// key is valid and yields a fallback-only synthesizer.
func NewSynthesizer(cfg *Config, opts ...ClientOption) (*Synthesizer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tmpl, err := loadPromptTemplate(cfg.PromptFile)
	if err != nil {
		return nil, err
	}

	optState := clientOptions{}
	for _, opt := range opts {
		opt(&optState)
	}
	logger := optState.logger
	if logger == nil {
		logger = NewLogger()
	}

	s := &Synthesizer{cfg: cfg, logger: logger, tmpl: tmpl}
	if cfg.Enabled() {
		client, err := NewClient(cfg, opts...)
		if err != nil {
			return nil, err
		}
		s.client = client
	}
	return s, nil
}

// Enabled reports whether the remote model will be consulted.
func (s *Synthesizer) Enabled() bool { return s.client != nil }

// Synthesize produces the executive summary. Remote failures log and fall
// back; the returned Source says which path produced the text.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) Result {
	if in.Snapshot == nil {
		in.Snapshot = &metrics.Snapshot{}
	}

	if s.client == nil {
		s.logger.Info(ctx, "narrative synthesis disabled, using fallback", nil)
		return Result{Text: fallbackNarrative(in), Source: SourceFallback}
	}

	prompt, err := renderPrompt(s.tmpl, in)
	if err != nil {
		s.logger.Error(ctx, err, nil)
		return Result{Text: fallbackNarrative(in), Source: SourceFallback}
	}

	text, err := s.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		s.logger.Warn(ctx, "narrative synthesis failed, using fallback", Fields{"err": err})
		return Result{Text: fallbackNarrative(in), Source: SourceFallback}
	}
	return Result{Text: text, Source: SourceLLM}
}
