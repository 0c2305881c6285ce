package region

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services"
	"gopkg.in/yaml.v3"
)

// DefaultRegions is the built-in region table
func DefaultRegions() []models.Region {
	return []models.Region{
		{
			Code:        "AU",
			DisplayName: "Australia",
			BackendHost: "localhost",
			BackendPort: 50051,
			Monitoring: &models.Monitoring{
				BaseURL: "https://uat.monitoring.csiq.io",
				Hosts:   []string{"UAT-SIPMEDIA1", "UAT-SIPMEDIA2", "UAT-SIPMEDIA3"},
			},
		},
		{
			Code:        "US",
			DisplayName: "United States",
			BackendHost: "localhost",
			BackendPort: 50052,
			Monitoring: &models.Monitoring{
				BaseURL: "https://us.monitoring.csiq.io",
				Hosts:   []string{"US-SIP-MEDIA1"},
			},
		},
		{
			Code:        "UK",
			DisplayName: "United Kingdom",
			BackendHost: "localhost",
			BackendPort: 50053,
			Monitoring: &models.Monitoring{
				BaseURL: "https://eu.monitoring.csiq.io",
				Hosts:   []string{"EU-SIP-MEDIA1", "EU-SIP-MEDIA2"},
			},
		},
	}
}

// Registry is the immutable table of known regions.
// It is built once and read concurrently without locking.
type Registry struct {
	regions map[string]models.Region
	ordered []models.Region
}

// NewRegistry builds a registry from the given regions.
// Codes must be unique and every region needs a backend address.
// Regions are copied in and copied out, so the table cannot be changed
// through the input slice or through returned values.
func NewRegistry(regions []models.Region) (*Registry, error) {
	r := &Registry{regions: make(map[string]models.Region, len(regions))}
	for _, reg := range regions {
		if reg.Code == "" {
			return nil, fmt.Errorf("region code is required")
		}
		if _, dup := r.regions[reg.Code]; dup {
			return nil, fmt.Errorf("duplicate region code %q", reg.Code)
		}
		if reg.BackendHost == "" || reg.BackendPort <= 0 {
			return nil, fmt.Errorf("region %s: backend host and port are required", reg.Code)
		}
		if reg.DisplayName == "" {
			reg.DisplayName = reg.Code
		}
		reg = reg.Clone()
		r.regions[reg.Code] = reg
		r.ordered = append(r.ordered, reg)
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].Code < r.ordered[j].Code })
	return r, nil
}

// Resolve returns the region for a code.
// Unknown codes fail with an unknown region error, never a zero region.
func (r *Registry) Resolve(code string) (models.Region, error) {
	reg, ok := r.regions[code]
	if !ok {
		return models.Region{}, services.NewDomainError(services.ErrorTypeUnknownRegion,
			fmt.Sprintf("Invalid region: %s", code), services.ErrUnknownRegion)
	}
	return reg.Clone(), nil
}

// Exists reports whether the code is a known region
func (r *Registry) Exists(code string) bool {
	_, ok := r.regions[code]
	return ok
}

// List returns all regions ordered by code
func (r *Registry) List() []models.Region {
	out := make([]models.Region, 0, len(r.ordered))
	for _, reg := range r.ordered {
		out = append(out, reg.Clone())
	}
	return out
}

// Summaries returns the public view of all regions
func (r *Registry) Summaries() []models.RegionSummary {
	out := make([]models.RegionSummary, 0, len(r.ordered))
	for _, reg := range r.ordered {
		out = append(out, reg.Summary())
	}
	return out
}

// Codes returns all region codes
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.ordered))
	for _, reg := range r.ordered {
		out = append(out, reg.Code)
	}
	return out
}

// SecretRef returns the environment variable name holding a region's signing secret,
// e.g. JWT_SECRET_AU_EAST for region au-east.
func SecretRef(prefix, code string) string {
	return prefix + "_" + normalizeCode(code)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(code, "-", "_"))
}

// LoadOptions controls how the region table is assembled
type LoadOptions struct {
	File         string // Optional YAML file replacing the defaults
	EnvPrefix    string // Host/port override prefix, e.g. GRPC
	SecretPrefix string // Secret name prefix, e.g. JWT_SECRET
	Getenv       func(string) string
}

type regionsFile struct {
	Regions []models.Region `yaml:"regions"`
}

// Load assembles the region table: defaults, then the optional YAML file,
// then <PREFIX>_<CODE>_HOST / _PORT environment overrides.
func Load(opts LoadOptions) (*Registry, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	regions := DefaultRegions()
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("read regions file: %w", err)
		}
		var file regionsFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse regions file: %w", err)
		}
		if len(file.Regions) == 0 {
			return nil, fmt.Errorf("regions file %s defines no regions", opts.File)
		}
		regions = file.Regions
	}

	for i := range regions {
		reg := &regions[i]
		if opts.EnvPrefix != "" {
			key := opts.EnvPrefix + "_" + normalizeCode(reg.Code)
			if host := getenv(key + "_HOST"); host != "" {
				reg.BackendHost = host
			}
			if portStr := getenv(key + "_PORT"); portStr != "" {
				port, err := strconv.Atoi(portStr)
				if err != nil {
					return nil, fmt.Errorf("region %s: invalid port %q", reg.Code, portStr)
				}
				reg.BackendPort = port
			}
		}
		if reg.SecretRef == "" && opts.SecretPrefix != "" {
			reg.SecretRef = SecretRef(opts.SecretPrefix, reg.Code)
		}
	}

	return NewRegistry(regions)
}
