package console

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/IliaW/util-cli/config"
)

const masked = "***"

// MaskValue hides values whose key names a credential.
func MaskValue(key string, value any) string {
	if config.IsSensitive(key) {
		return masked
	}
	return fmt.Sprint(value)
}

// ConfigTable prints every section/key pair sorted by section then key. Sections
// without keys are left out.
func ConfigTable(out io.Writer, sections map[string]map[string]any) {
	fmt.Fprintln(out, headerStyle.Render("Util CLI Configuration"))
	fmt.Fprintln(out, strings.Repeat("-", 50))
	names := make([]string, 0, len(sections))
	for name, keys := range sections {
		if len(keys) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		Warn(out, "No configuration found or configuration is empty")
		return
	}
	sort.Strings(names)

	tbl := newTable(out, "Section", "Key", "Value").WithFirstColumnFormatter(styled(sectionStyle))
	for _, name := range names {
		keys := make([]string, 0, len(sections[name]))
		for k := range sections[name] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tbl.AddRow(name, k, MaskValue(k, sections[name][k]))
		}
	}
	tbl.Print()
}

func ConfigValue(out io.Writer, section, key string, value any) {
	fmt.Fprintf(out, "%s = %s\n", keyStyle.Render(section+":"+key), valueStyle.Render(MaskValue(key, value)))
}
