// Package domain contains the core types of the spatial navigation model:
// nodes, paths, viewports, transitions and the event protocol shared by all
// adapters. It has no dependencies on the rest of the module.
package domain
