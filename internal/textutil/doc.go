// Package textutil sanitizes user-supplied values, such as job subject
// identifiers, before they are embedded in filesystem paths.
package textutil
