// Package identity resolves the AWS account id behind a profile.
//
// The account id namespaces team cache keys. Resolution uses STS
// GetCallerIdentity, is cached per profile for the life of the process
// (account ids do not change under a credential), and degrades gracefully:
// the orchestrator treats a resolution failure as "team cache disabled for
// this call", never as a refresh failure.
package identity
