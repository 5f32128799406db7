//go:build dev

package domain

const devBuild = true
