package models

// Region is an independently addressable backend deployment.
// Regions are loaded at startup and never modified afterwards.
type Region struct {
	Code        string      `json:"code" yaml:"code"`
	DisplayName string      `json:"name" yaml:"name"`
	BackendHost string      `json:"-" yaml:"host"`
	BackendPort int         `json:"-" yaml:"port"`
	SecretRef   string      `json:"-" yaml:"secretRef"`
	Monitoring  *Monitoring `json:"-" yaml:"monitoring,omitempty"`
}

// Monitoring holds the log explorer settings used to build call links
type Monitoring struct {
	BaseURL string   `yaml:"baseUrl"`
	Hosts   []string `yaml:"hosts"`
}

// RegionSummary is the public view of a region
type RegionSummary struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Clone returns a copy that shares no memory with r
func (r Region) Clone() Region {
	if r.Monitoring != nil {
		mon := *r.Monitoring
		mon.Hosts = append([]string(nil), r.Monitoring.Hosts...)
		r.Monitoring = &mon
	}
	return r
}

// Summary returns the public view of the region
func (r Region) Summary() RegionSummary {
	return RegionSummary{Code: r.Code, Name: r.DisplayName}
}
