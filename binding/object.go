package binding

import "github.com/signadot/bindtree/schema"

// DataObject is implemented by generated data classes: containers, list
// entries and cases.
type DataObject interface {
	QName() schema.QName
}

// Identity is implemented by generated identity marker types.
type Identity interface {
	IdentityName() schema.QName
}
