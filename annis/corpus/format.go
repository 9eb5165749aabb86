package corpus

import (
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/executor"
)

// FormatTuple renders a result tuple as a space-separated list of match
// descriptors.
func (c *Corpus) FormatTuple(t executor.Tuple) string {
	parts := make([]string, len(t))
	for i, m := range t {
		parts[i] = c.FormatMatch(m)
	}
	return strings.Join(parts, " ")
}

// FormatMatch renders one Match as "<ns>::<name>::#<node_name>", omitting
// the "<ns>::<name>::" prefix when the matched annotation is the wildcard
// or is itself the built-in node-name metadata. The corpus/document
// hierarchy ahead of the node name belongs to the importer; the node_name
// value is rendered as-is, which already carries that path under the ANNIS
// on-disk convention ("<corpus>/<document>#<salt-id>").
func (c *Corpus) FormatMatch(m annis.Match) string {
	name := c.nodeNameOrFallback(m.Node)

	if m.Anno == annis.WildcardAnnotation {
		return "#" + name
	}

	nsStr, _ := c.Pool.Str(m.Anno.Key.Ns)
	nameStr, _ := c.Pool.Str(m.Anno.Key.Name)
	if nsStr == annis.AnnisNs && nameStr == annis.AnnisNodeName {
		return "#" + name
	}
	return nsStr + "::" + nameStr + "::#" + name
}

func (c *Corpus) nodeNameOrFallback(node annis.NodeId) string {
	nsID, ok1 := c.Pool.FindId(annis.AnnisNs)
	nameID, ok2 := c.Pool.FindId(annis.AnnisNodeName)
	if ok1 && ok2 {
		if anno, ok := c.Annos.Get(node, nsID, nameID); ok {
			if s, ok := c.Pool.Str(anno.Val); ok {
				return s
			}
		}
	}
	return "node" + strconv.FormatUint(uint64(node), 10)
}

// colorizeLabel highlights a plan node's kind for terminal output.
func colorizeLabel(kind string) string {
	switch kind {
	case "base":
		return color.CyanString(kind)
	case "filter":
		return color.YellowString(kind)
	case "nested_loop":
		return color.RedString(kind)
	case "seed_index", "parallel_index":
		return color.GreenString(kind)
	default:
		return kind
	}
}
