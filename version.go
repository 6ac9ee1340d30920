package tickstory

// Version is the release of the module, overridden at build time with
// -ldflags "-X github.com/aretw0/tickstory.Version=...".
var Version = "dev"
