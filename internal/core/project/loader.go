package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/eventscope/internal/core/models"
)

var (
	ErrUnsupportedFormat = errors.New("project: unsupported file format")
	ErrDuplicateEvent    = errors.New("project: duplicate event id")
)

// Format is a project file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// File is the on-disk description of a project.
type File struct {
	Events     []EventSpec     `json:"events" yaml:"events" toml:"events"`
	Containers []ContainerSpec `json:"containers" yaml:"containers" toml:"containers"`
}

type EventSpec struct {
	ID          string   `json:"id" yaml:"id" toml:"id"`
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Kind        string   `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Members     []string `json:"members,omitempty" yaml:"members,omitempty" toml:"members,omitempty"`
}

type ContainerSpec struct {
	ID         string     `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Name       string     `json:"name" yaml:"name" toml:"name"`
	Registered *bool      `json:"registered,omitempty" yaml:"registered,omitempty" toml:"registered,omitempty"`
	Nodes      []NodeSpec `json:"nodes,omitempty" yaml:"nodes,omitempty" toml:"nodes,omitempty"`
}

type NodeSpec struct {
	ID       string     `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Name     string     `json:"name" yaml:"name" toml:"name"`
	Units    []UnitSpec `json:"units,omitempty" yaml:"units,omitempty" toml:"units,omitempty"`
	Children []NodeSpec `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`
}

type UnitSpec struct {
	ID     string         `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Type   string         `json:"type" yaml:"type" toml:"type"`
	Name   string         `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
}

// Decode reads a project file in the given format.
func Decode(r io.Reader, format Format) (*File, error) {
	var f File
	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&f)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&f)
	case FormatTOML:
		err = toml.NewDecoder(r).Decode(&f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s project: %w", format, err)
	}
	return &f, nil
}

// Load reads and builds the project file at path.
func Load(path string, reg *Registry) (*Project, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := Decode(fh, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p, err := f.Build(reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Build instantiates the object graph. Events are created before members are
// linked, so collections may list themselves or events declared later. Nodes and
// units without an id get a random one.
func (f *File) Build(reg *Registry) (*Project, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	p := New()

	for _, es := range f.Events {
		kind, err := parseKind(es.Kind)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", es.ID, err)
		}
		id := es.ID
		if id == "" {
			id = es.Name
		}
		e := models.NewEvent(models.ID(id), es.Name, kind)
		e.Description = es.Description
		if !p.AddEvent(e) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEvent, id)
		}
	}
	for i, es := range f.Events {
		e := p.events[i]
		if len(es.Members) > 0 && !e.IsCollection() {
			return nil, fmt.Errorf("event %s: %w: members on a simple event", e.ID(), ErrInvalidParam)
		}
		for _, member := range es.Members {
			m, ok := p.Event(models.ID(member))
			if !ok {
				return nil, fmt.Errorf("event %s: %w: %s", e.ID(), ErrUnknownEvent, member)
			}
			e.AddMember(m)
		}
	}

	for _, cs := range f.Containers {
		c := models.NewContainer(models.ID(orRandom(cs.ID)), cs.Name)
		for _, ns := range cs.Nodes {
			n, err := buildNode(reg, p, ns)
			if err != nil {
				return nil, fmt.Errorf("container %s: %w", cs.Name, err)
			}
			c.AddRoot(n)
		}
		registered := cs.Registered == nil || *cs.Registered
		p.AddContainer(c, registered)
	}
	return p, nil
}

func buildNode(reg *Registry, res Resolver, ns NodeSpec) (*models.Node, error) {
	n := models.NewNode(models.ID(orRandom(ns.ID)), ns.Name)
	for _, us := range ns.Units {
		name := us.Name
		if name == "" {
			name = us.Type
		}
		u, err := reg.NewUnit(us.Type, res, models.ID(orRandom(us.ID)), name, us.Params)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", ns.Name, err)
		}
		n.AddUnit(u)
	}
	for _, cs := range ns.Children {
		child, err := buildNode(reg, res, cs)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

func parseKind(s string) (models.Kind, error) {
	switch strings.ToLower(s) {
	case "", "simple":
		return models.KindSimple, nil
	case "collection":
		return models.KindCollection, nil
	default:
		return 0, fmt.Errorf("%w: kind %q", ErrInvalidParam, s)
	}
}

func orRandom(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
