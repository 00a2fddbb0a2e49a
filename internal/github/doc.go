// Package github provides a minimal GitHub REST API client for posting a
// codelens report as a pull-request review.
//
// The repository comes from GITHUB_REPOSITORY or the local git remote and the
// credential from GITHUB_TOKEN. Findings with a line in a changed file become
// inline comments; everything else is summarized in the review body.
package github
