package util

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Atomic file write", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "atomicfile")
		Expect(err).Should(Succeed())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	When("the target does not exist", func() {
		It("should create the file with the passed content", func() {
			path := filepath.Join(dir, "out.json")
			Expect(WriteFileAtomic(path, []byte("content"))).Should(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).Should(Succeed())
			Expect(string(data)).Should(Equal("content"))
		})
		It("should create missing parent directories", func() {
			path := filepath.Join(dir, "sub", "dir", "out.json")
			Expect(WriteFileAtomic(path, []byte("x"))).Should(Succeed())
			Expect(path).Should(BeARegularFile())
		})
	})

	When("the target exists", func() {
		It("should replace the previous content completely", func() {
			path := filepath.Join(dir, "out.json")
			Expect(WriteFileAtomic(path, []byte("old content"))).Should(Succeed())
			Expect(WriteFileAtomic(path, []byte("new"))).Should(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).Should(Succeed())
			Expect(string(data)).Should(Equal("new"))
		})
	})

	It("should not leave temp files behind", func() {
		path := filepath.Join(dir, "out.json")
		Expect(WriteFileAtomic(path, []byte("x"))).Should(Succeed())

		entries, err := os.ReadDir(dir)
		Expect(err).Should(Succeed())
		Expect(entries).Should(HaveLen(1))
	})
})
