// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package lib

import (
	"strings"
)

// PatchSliceOfMaps flattens the single-element lists of maps the HCL decoder
// produces for blocks into plain maps. Keys named in skip stay lists, with
// each element patched; keys named in skipTree are left alone entirely. Keys
// are dotted paths matched case-insensitively. A list holding more than one
// map is kept as it is so the decoder can report it.
func PatchSliceOfMaps(m map[string]interface{}, skip []string, skipTree []string) map[string]interface{} {
	lowerSkip := make([]string, len(skip))
	lowerSkipTree := make([]string, len(skipTree))

	for i, val := range skip {
		lowerSkip[i] = strings.ToLower(val)
	}

	for i, val := range skipTree {
		lowerSkipTree[i] = strings.ToLower(val)
	}

	return patchValue("", m, lowerSkip, lowerSkipTree).(map[string]interface{})
}

func patchValue(name string, v interface{}, skip []string, skipTree []string) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		if len(x) == 0 {
			return x
		}
		mm := make(map[string]interface{})
		for k, v := range x {
			key := k
			if name != "" {
				key = name + "." + k
			}
			mm[k] = patchValue(key, v, skip, skipTree)
		}
		return mm

	case []interface{}:
		if len(x) == 0 {
			return nil
		}
		if StrContains(skipTree, strings.ToLower(name)) {
			return x
		}
		if StrContains(skip, strings.ToLower(name)) {
			for i, y := range x {
				x[i] = patchValue(name, y, skip, skipTree)
			}
			return x
		}
		if _, ok := x[0].(map[string]interface{}); !ok || len(x) > 1 {
			return x
		}
		return patchValue(name, x[0], skip, skipTree)

	case []map[string]interface{}:
		if len(x) == 0 {
			return nil
		}
		if StrContains(skipTree, strings.ToLower(name)) {
			return x
		}
		if StrContains(skip, strings.ToLower(name)) {
			for i, y := range x {
				x[i] = patchValue(name, y, skip, skipTree).(map[string]interface{})
			}
			return x
		}
		if len(x) > 1 {
			return x
		}
		return patchValue(name, x[0], skip, skipTree)

	default:
		return v
	}
}
