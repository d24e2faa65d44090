package txsession

// ResetDefaultRegistry forgets the manager of the default registry.
func ResetDefaultRegistry() {
	getDefaultRegistry().manager.Store(nil)
}
