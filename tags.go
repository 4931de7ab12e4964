package audiounlock

import "github.com/simonhull/audiounlock/internal/types"

// Metadata is an alias to types.Metadata.
type Metadata = types.Metadata

// Artist is an alias to types.Artist.
type Artist = types.Artist

// Tags is an alias to types.Tags.
type Tags = types.Tags
