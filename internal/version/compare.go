package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckReportCompatibility reports whether a report produced by reportVersion
// can be compared with reports of engineVersion.
//
// Rules:
//   - "main" (development build) or an empty report version skips the check
//   - major and minor versions must match
//   - patch versions may differ
func CheckReportCompatibility(engineVersion, reportVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	reportVersion = strings.TrimPrefix(reportVersion, "v")

	if engineVersion == "main" || reportVersion == "main" || reportVersion == "" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	reportSemver, err := semver.NewVersion(reportVersion)
	if err != nil {
		return fmt.Errorf("invalid report version '%s': %w", reportVersion, err)
	}

	if engineSemver.Major() != reportSemver.Major() {
		return fmt.Errorf("major version mismatch: engine is %d.x.x but report was produced by %d.x.x",
			engineSemver.Major(), reportSemver.Major())
	}

	if engineSemver.Minor() != reportSemver.Minor() {
		return fmt.Errorf("minor version mismatch: engine is %d.%d.x but report was produced by %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			reportSemver.Major(), reportSemver.Minor())
	}

	return nil
}
