// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooks

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"
	"github.com/kballard/go-shellquote"
)

// SaveScriptRC writes vars as shell exports for the charm's functional
// test scripts.
func SaveScriptRC(path string, vars map[string]string) error {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("#!/bin/bash\n")
	for _, k := range keys {
		fmt.Fprintf(&buf, "export %s=%s\n", k, shellquote.Join(vars[k]))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(utils.AtomicWriteFile(path, buf.Bytes(), 0755), "writing %s", path)
}

func scriptRCVars(localhost, webroot string) map[string]string {
	return map[string]string{
		"OPENSTACK_URL_HORIZON":      fmt.Sprintf("http://%s:70%s|Login+-+OpenStack", localhost, webroot),
		"OPENSTACK_SERVICE_HORIZON":  "apache2",
		"OPENSTACK_PORT_HORIZON_SSL": "433",
		"OPENSTACK_PORT_HORIZON":     "70",
	}
}
