package assets

import (
	_ "embed"
)

// StagesYAML is the sample hunt shipped with the binary. Its digests were
// produced with the development placeholder pepper, so it is only usable when
// the server runs in dev mode or with that pepper configured explicitly.
//
//go:embed stages.yaml
var StagesYAML []byte
