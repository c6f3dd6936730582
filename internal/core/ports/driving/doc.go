// Package driving holds the interfaces the REST surface and the drop-folder
// watcher call into: task submission and evidence record access. They sit on
// the driving side of the hexagon, with implementations in
// internal/core/services.
package driving
