package factory

import (
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
)

// Minimal proxy (EIP-1167) init code surrounding the template address.
var (
	clonePrefix = []byte{
		0x3d, 0x60, 0x2d, 0x80, 0x60, 0x0a, 0x3d, 0x39, 0x81, 0xf3,
		0x36, 0x3d, 0x3d, 0x37, 0x3d, 0x3d, 0x3d, 0x36, 0x3d, 0x73,
	}
	cloneSuffix = []byte{
		0x5a, 0xf4, 0x3d, 0x82, 0x80, 0x3e, 0x90, 0x3d, 0x91, 0x60,
		0x2b, 0x57, 0xfd, 0x5b, 0xf3,
	}
)

// Salt derives the creation salt from a name: Keccak-256 of its NFC form,
// so canonically equivalent spellings collide.
func Salt(name string) [32]byte {
	var salt [32]byte
	copy(salt[:], ident.Keccak256([]byte(ir.NormalizeName(name))))
	return salt
}

// DeriveAddress computes where a clone of template created by factory with
// salt lives. It is a pure function of its inputs.
func DeriveAddress(factory, template ident.Address, salt [32]byte) ident.Address {
	return create2(factory, salt, ident.Keccak256(cloneInitCode(template)))
}

func cloneInitCode(template ident.Address) []byte {
	code := make([]byte, 0, len(clonePrefix)+ident.Size+len(cloneSuffix))
	code = append(code, clonePrefix...)
	code = append(code, template.Bytes()...)
	return append(code, cloneSuffix...)
}

// create2 is keccak256(0xff ++ deployer ++ salt ++ initCodeHash)[12:].
func create2(deployer ident.Address, salt [32]byte, initCodeHash []byte) ident.Address {
	return ident.FromBytes(ident.Keccak256([]byte{0xff}, deployer.Bytes(), salt[:], initCodeHash))
}
