// Package crudtest provides test doubles for code built on crud: a scripted
// Transport, a Response that counts Close calls, and an in-memory asset
// REST service served by gin.
package crudtest
