// Package registry blank-imports every pkg/target constructor family so
// their init() functions register with pkg/target before cmd/inputmuxd
// starts matching configuration against target kinds.
package registry

import (
	_ "github.com/inputmux/inputmuxd/pkg/target/bustarget"  // register "bus"
	_ "github.com/inputmux/inputmuxd/pkg/target/hidtarget"  // register "hid.*"
	_ "github.com/inputmux/inputmuxd/pkg/target/uinputdev"  // register "uinput.*"
)
