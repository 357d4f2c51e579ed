// Package provider contains ServiceProvider building blocks: a do-nothing
// provider, a scripted test double, a response cache, an HTTP fetcher and a
// wrapper that turns every failure into a logged empty result.
package provider
