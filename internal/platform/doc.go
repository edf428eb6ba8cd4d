// Package platform wraps the serverless platform's tooling for the
// serverless-workshop CLI.
//
// All platform operations are performed via os/exec calls to the python
// interpreter (for the import check and pip install) and to the modal
// binary (for authentication, connectivity checks and deployments).
// Shelling out keeps the learner's terminal behavior and the CLI's
// behavior identical: the same binary, the same credentials file.
//
// Command execution goes through the Runner interface so the setup
// workflow can be tested without the platform installed.
package platform
