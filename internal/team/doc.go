// Package team maintains the registry of named teams and their member
// agents. Team and agent names are normalized into a safe filesystem
// identifier alphabet before any path is derived from them; state lives in
// one JSON record per team under the directory's base path.
package team
