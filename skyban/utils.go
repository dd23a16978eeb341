package skyban

type LogCallbackFunc func(format string, a ...interface{})

func sliceStringHas(slice []string, probe string) bool {
	for i := range slice {
		if slice[i] == probe {
			return true
		}
	}
	return false
}
