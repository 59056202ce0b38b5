// Package contrib holds tools and test helpers built on top of the Syncano
// Go SDK.
//
// Packages here are not covered by the compatibility promise of the SDK
// itself and may change between minor releases.
//
// [github.com/syncano/syncano.go/contrib/syncanodump] saves a project to a
// file and restores it as a new project, also from the command line with
// "syncano dump" and "syncano restore". [github.com/syncano/syncano.go/contrib/testenv]
// connects tests and examples to a live instance or to an in-process fake
// server.
package contrib
