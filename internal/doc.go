// internal is internal packages for Scout.
//
// Packages depend on the data model in lib-scout, and receive their collaborators as interfaces like patrol.Executor and alert.Sink.
//
// The scouterr, journal, and testutil packages are exception cases.
// These packages are used by other packages.
package internal
