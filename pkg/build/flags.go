// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded at link time:
//
//	go build -ldflags "-X solstice/pkg/build.buildVersion=0.2.0 ..."
//
// Development builds carry no ldflags and report the defaults below.
package build

import (
	"errors"
	"fmt"
)

// Defaults reported by development builds.
const (
	DefaultName        = "solstice"
	DefaultDescription = "Audio analysis tool: streaming spectrogram and spectral peak finder"
	DefaultVersion     = "0.0.0-dev"
	unknown            = "unknown"
)

// Info is the build information of the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the version line printed by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var buildInfo = defaultInfo()

func defaultInfo() *Info {
	return &Info{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     DefaultVersion,
	}
}

// Initialize copies the ldflags values into the build information. When
// any of them is missing it keeps the development defaults and returns an
// error naming every missing flag.
func Initialize() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		buildInfo = defaultInfo()
		return err
	}

	buildInfo = &Info{
		Name:        buildName,
		Description: DefaultDescription,
		Time:        buildTime,
		Commit:      buildCommit,
		Version:     buildVersion,
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}
