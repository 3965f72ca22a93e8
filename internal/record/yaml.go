package record

import "gopkg.in/yaml.v3"

// UnmarshalYAML applies the same input defaults as Decode.
func (r *Record) UnmarshalYAML(n *yaml.Node) error {
	type plain Record
	v := plain(New())
	if err := n.Decode(&v); err != nil {
		return err
	}
	*r = Record(v)
	return nil
}

func (v *CartWiseDetails) UnmarshalYAML(n *yaml.Node) error {
	type plain CartWiseDetails
	p := plain{DiscountType: defaultDiscountType}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*v = CartWiseDetails(p)
	return nil
}

func (v *ProductWiseDetails) UnmarshalYAML(n *yaml.Node) error {
	type plain ProductWiseDetails
	p := plain{DiscountType: defaultDiscountType}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*v = ProductWiseDetails(p)
	return nil
}

func (v *BxGyDetails) UnmarshalYAML(n *yaml.Node) error {
	type plain BxGyDetails
	p := plain{RepetitionLimit: defaultRepetitionLimit}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*v = BxGyDetails(p)
	return nil
}

func (v *ProductQuantity) UnmarshalYAML(n *yaml.Node) error {
	type plain ProductQuantity
	p := plain{Quantity: defaultQuantity}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*v = ProductQuantity(p)
	return nil
}
