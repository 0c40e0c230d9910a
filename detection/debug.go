package detection

// Global debug function for detection package
var debugMsgFunc func(string, string)

// SetDebugFunction allows main package to provide debug function
func SetDebugFunction(fn func(string, string)) {
	debugMsgFunc = fn
}

// debugMsg is a wrapper that handles nil checks
func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}
