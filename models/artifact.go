package models

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	TypeLinear           = "linear"
	TypeGradientBoosting = "gradient_boosting"
)

// Spec is the serialized form of a single predictor. Exactly one of the model fields is
// populated and matches Type.
type Spec struct {
	Type             string            `json:"type"`
	Linear           *Linear           `json:"linear,omitempty"`
	GradientBoosting *GradientBoosting `json:"gradient_boosting,omitempty"`
}

// Predictor validates and returns the populated model
func (s Spec) Predictor() (Predictor, error) {
	switch s.Type {
	case TypeLinear:
		if err := s.Linear.Validate(); err != nil {
			return nil, fmt.Errorf("invalid linear model, %w", err)
		}
		return s.Linear, nil
	case TypeGradientBoosting:
		if err := s.GradientBoosting.Validate(); err != nil {
			return nil, fmt.Errorf("invalid gradient boosting model, %w", err)
		}
		return s.GradientBoosting, nil
	}
	return nil, fmt.Errorf("%q, %w", s.Type, ErrUnknownModelType)
}

// Artifact bundles both pre-fit models with the feature contract they were trained with
type Artifact struct {
	Name     string   `json:"name"`
	Contract Contract `json:"contract"`
	Base     Spec     `json:"base"`
	Residual Spec     `json:"residual"`
}

// Validate checks the contract and that both models decode and agree with it
func (a *Artifact) Validate() error {
	if a == nil {
		return ErrNoModel
	}
	if err := a.Contract.Validate(); err != nil {
		return err
	}
	if _, err := a.Bind(); err != nil {
		return err
	}
	return nil
}

// Models are the two bound predictors of an artifact
type Models struct {
	Base     *Bound
	Residual *Bound
}

// Bind binds the base and residual models to their contract columns
func (a *Artifact) Bind() (*Models, error) {
	base, err := a.Base.Predictor()
	if err != nil {
		return nil, fmt.Errorf("unable to load %s model, %w", NameBase, err)
	}
	residual, err := a.Residual.Predictor()
	if err != nil {
		return nil, fmt.Errorf("unable to load %s model, %w", NameResidual, err)
	}
	return BindModels(base, residual, a.Contract)
}

// BindModels binds arbitrary base and residual predictors to a contract
func BindModels(base, residual Predictor, c Contract) (*Models, error) {
	b, err := Bind(NameBase, base, c.FeatureCols)
	if err != nil {
		return nil, err
	}
	r, err := Bind(NameResidual, residual, c.ResidualFeatureCols)
	if err != nil {
		return nil, err
	}
	return &Models{Base: b, Residual: r}, nil
}

// DecodeArtifact reads and validates an artifact
func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("unable to decode model artifact, %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate model artifact, %w", err)
	}
	return &a, nil
}

// Encode writes the artifact as indented json
func (a *Artifact) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// ReadArtifact opens and decodes the artifact at path
func ReadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open model artifact, %w", err)
	}
	defer f.Close()
	return DecodeArtifact(f)
}

const DefaultLoaderSize = 8

// Loader caches decoded artifacts by path so repeated requests skip parsing
type Loader struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Artifact]
	read  func(string) (*Artifact, error)
}

func NewLoader(size int) (*Loader, error) {
	if size <= 0 {
		size = DefaultLoaderSize
	}
	cache, err := lru.New[string, *Artifact](size)
	if err != nil {
		return nil, fmt.Errorf("unable to create artifact cache, %w", err)
	}
	return &Loader{
		cache: cache,
		read:  ReadArtifact,
	}, nil
}

// Load returns the cached artifact for path, reading it on a miss
func (l *Loader) Load(path string) (*Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a, ok := l.cache.Get(path); ok {
		return a, nil
	}
	a, err := l.read(path)
	if err != nil {
		return nil, err
	}
	l.cache.Add(path, a)
	return a, nil
}

// Purge drops every cached artifact
func (l *Loader) Purge() {
	l.cache.Purge()
}

// Len returns the number of cached artifacts
func (l *Loader) Len() int {
	return l.cache.Len()
}
