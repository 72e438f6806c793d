package dto

import (
	lethalitydto "retort/internal/modules/lethality/dto"
)

type RenderInput struct {
	SessionID string
	Format    string
	Overrides lethalitydto.ParameterOverrides
}

type RenderOutput struct {
	SessionID   string
	Format      string
	ContentType string
	Location    string
	ParamsKey   string
	TotalF0     float64
	Holding     bool
	Body        []byte
	Renderer    string
}

type FormatInfo struct {
	Format   string
	Renderer string
}

type InspectOutput struct {
	Path     string
	Pages    int
	TotalF0  float64
	HasTotal bool
	Verdict  string
	Text     string
}

type PluginInfo struct {
	Name    string
	Version string
	Enabled bool
	Binary  string
	Formats []string
}

type DoctorResult struct {
	Name            string
	BinaryReachable bool
	ChecksumValid   bool
	APICompatible   bool
	LifecycleOK     bool
	Error           string
}
