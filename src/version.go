package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Identify the build for --version.
 *
 * Description:	The version comes from, in order of preference:
 *
 *		- PAGERBITS_VERSION, set at link time.
 *		- The module version recorded by "go install pkg@version".
 *		- "!UNKNOWN!" for a plain "go build" in a work tree.
 *
 *		The VCS revision and time are added when the build
 *		recorded them.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/pagerbits/src.PAGERBITS_VERSION=X'"`
var PAGERBITS_VERSION string

func buildSetting(bi *debug.BuildInfo, key string, defaultValue string) string {
	if bi == nil {
		return defaultValue
	}

	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

func versionString(program string, bi *debug.BuildInfo) string {
	var version = PAGERBITS_VERSION

	if version == "" && bi != nil && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}

	if version == "" {
		version = "!UNKNOWN!"
	}

	var revision = buildSetting(bi, "vcs.revision", "")
	if revision == "" {
		return fmt.Sprintf("%s - Version %s", program, version)
	}

	// Anything but a clear "false" means we can't vouch for the tree.
	if dirty, err := strconv.ParseBool(buildSetting(bi, "vcs.modified", "")); err != nil || dirty {
		revision += "-DIRTY"
	}

	return fmt.Sprintf("%s - Version %s (revision %s, built at %s)", program, version, revision,
		buildSetting(bi, "vcs.time", "UNKNOWN"))
}

func printVersion(w io.Writer, program string) {
	var bi, _ = debug.ReadBuildInfo()

	fmt.Fprintln(w, versionString(program, bi))
}
