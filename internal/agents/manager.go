package agents

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/openagora/agora/internal/domain"
)

// defaultService is used when a definition doesn't name one.
const defaultService = "executor"

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithRetriever gives agents with the search plugin access to retrieval.
func WithRetriever(r domain.Retriever) ManagerOption {
	return func(m *Manager) {
		m.retriever = r
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager loads agents from YAML definitions and tracks which of them are
// critics.
type Manager struct {
	services  map[string]Service
	retriever domain.Retriever
	logger    *slog.Logger

	agents  []*Agent
	critics []*Agent
}

// NewManager creates a manager. services maps service names referenced by
// agent definitions ("executor", "utility") to provider+model bindings.
func NewManager(services map[string]Service, opts ...ManagerOption) *Manager {
	m := &Manager{
		services: services,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadDirectory loads every *.yaml file under dir, recursively. Files that
// fail to parse are logged and skipped so one bad definition doesn't take the
// whole roster down.
func (m *Manager) LoadDirectory(dir string) ([]*Agent, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan agents directory: %w", err)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no agent definitions found in %s", dir)
	}

	for _, path := range paths {
		agent, err := m.loadFile(path)
		if err != nil {
			m.logger.Error("failed to load agent definition",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		m.agents = append(m.agents, agent)
		if agent.IsCritic() {
			m.critics = append(m.critics, agent)
			m.logger.Info("registered critic agent", slog.String("agent", agent.Name()))
		}
	}

	if len(m.agents) == 0 {
		return nil, fmt.Errorf("no usable agent definitions in %s", dir)
	}

	m.logger.Info("loaded agents", slog.Int("count", len(m.agents)))
	return m.agents, nil
}

func (m *Manager) loadFile(path string) (*Agent, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var def Definition
	if err := k.Unmarshal("", &def); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if def.Name == "" {
		return nil, fmt.Errorf("agent definition %s has no name", path)
	}

	serviceName := def.Service
	if serviceName == "" {
		serviceName = defaultService
	}
	service, ok := m.services[serviceName]
	if !ok {
		return nil, fmt.Errorf("agent %s references unknown service %q", def.Name, serviceName)
	}

	return &Agent{
		def:       def,
		service:   service,
		retriever: m.retriever,
		logger:    m.logger,
	}, nil
}

// All returns every loaded agent.
func (m *Manager) All() []*Agent {
	return m.agents
}

// Critics returns the critic agents. When none were flagged, agents whose
// name contains "critic" are used instead.
func (m *Manager) Critics() []*Agent {
	if len(m.critics) > 0 {
		return m.critics
	}
	var fallback []*Agent
	for _, a := range m.agents {
		if strings.Contains(strings.ToLower(a.Name()), "critic") {
			fallback = append(fallback, a)
		}
	}
	return fallback
}

// ByName returns the agent with the given name, or nil.
func (m *Manager) ByName(name string) *Agent {
	for _, a := range m.agents {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
