package baseline

import "reflect"

func reflectMapPointer(m map[string]any) uintptr {
	return reflect.ValueOf(m).Pointer()
}

func containsPtr(seen []uintptr, ptr uintptr) bool {
	for _, p := range seen {
		if p == ptr {
			return true
		}
	}
	return false
}
