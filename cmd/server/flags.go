package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlag связывает флаг с ключом viper. Незаданный флаг не перекрывает env и файл.
func bindFlag(v *viper.Viper, flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
