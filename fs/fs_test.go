package appfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS(t *testing.T) {
	files := []string{
		"assets/templates/email/_base.gohtml",
		"assets/templates/email/_base.txt",
		"assets/templates/email/password_reset.gohtml",
		"assets/templates/email/password_reset.txt",
		"assets/common-passwords.txt.gz",
		"migrations/00001_schools_users.sql",
		"migrations/00005_fix_group_member_class.sql",
	}
	for _, name := range files {
		name := name
		t.Run(name, func(t *testing.T) {
			data, err := fs.ReadFile(FS, name)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}
