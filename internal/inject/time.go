package inject

import "time"

// timeAfter is indirected so tests can run without real settle delays.
var timeAfter = time.After
