// Package connectors holds the provider integrations. Each subpackage
// implements the provider client and webhook mapping for one external
// system; the Slack package is currently the only provider.
//
// Provider clients are created through each package's Factory, which
// resolves credentials via the broker per connector.
package connectors
