// Package types defines the Store and ProductTable interfaces, the Product
// entity, configuration, and the standard errors for the shoplist catalog.
package types
