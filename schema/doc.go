// Package schema provides the schema model consumed by the binding codec.
//
// # Overview
//
// A Model is a tree of Nodes rooted at a synthetic container. Each Node has a
// Kind from a closed set (container, list, leaf, leaf-list, choice, case) and
// a qualified name (QName). Leaves and leaf-lists carry a TypeDef, which is
// either a built-in type or a derivation of one; TypeDef.Root follows the
// derivation chain back to the built-in.
//
// Models are immutable once built. Groupings and augmentations are expanded
// by NewModel, so consumers only see the resulting data tree.
//
// # Building Models
//
//	mod := &schema.Module{
//	    Name: "ex",
//	    Data: []*schema.Node{
//	        schema.Container("top",
//	            schema.Leaf("name", schema.String),
//	            schema.List("item", []string{"id"},
//	                schema.Leaf("id", schema.Uint32))),
//	    },
//	}
//	m, err := schema.NewModel(mod)
//
// Models can also be loaded from YAML module documents with Load and
// LoadFiles.
//
// # Related Packages
//
//   - github.com/signadot/bindtree/ir - generic paths and trees
//   - github.com/signadot/bindtree/codec - the binding codec tree
package schema
